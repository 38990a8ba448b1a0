package main

import "pkg-with-test/another"

func Hi() {
	println("hi")
}

func main() {
	Hi()
	another.LocalFunc(2)
}
