package sub

func Visit(i int) {
	if i%2 == 0 {
		println("even", i)
		return
	}
	println("odd", i)
}
