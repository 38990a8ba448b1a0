package main

import "unrelated-name/sub"

func main() {
	for i := 0; i < 3; i++ {
		sub.Visit(i)
	}
}
