package main

import "os"

var verbose = len(os.Args) > 1

type shape interface {
	area() int
}

type rect struct{ w, h int }

func (r *rect) area() int { return r.w * r.h }

// classify buckets n by its magnitude.
func classify(n int) string {
	switch {
	case n < 0:
		return "negative"
	case n == 0:
		return "zero"
	case n < 10:
		return "small"
	}
	return "large"
}

func collatz(n int) (steps int) {
	for n != 1 {
		if n%2 == 0 {
			n /= 2
		} else {
			n = 3*n + 1
		}
		steps++
	}
	return
}

func grid(w, h int) (count int) {
rows:
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case x > y:
				continue rows
			case x*y > 50:
				break rows
			}
			count++
		}
	}
	return
}

func search(xs []int, v int) (int, bool) {
	lo, hi := 0, len(xs)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case xs[mid] == v:
			return mid, true
		case xs[mid] < v:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return -1, false
}

func mustPositive(n int) int {
	if n <= 0 {
		panic("not positive")
	}
	return n
}

func drain(ch chan int) (sum int) {
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return
			}
			sum += v
		default:
			if verbose {
				println("waiting")
			}
		}
	}
}

func safeArea(s shape) (a int) {
	defer func() {
		if recover() != nil {
			a = -1
		}
	}()
	return s.area()
}

func main() {
	println(classify(7), collatz(27), grid(8, 8))
	println(search([]int{1, 3, 5, 7}, 5))
	println(mustPositive(3), safeArea(&rect{2, 3}))

	ch := make(chan int, 3)
	for i := 0; i < 3; i++ {
		ch <- i
	}
	close(ch)
	println(drain(ch))
}
