package another

func LocalFunc(n int) (s int) {
	for n > 0 {
		s += n
		n--
	}
	return
}
