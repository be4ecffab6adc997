package main

type T struct {
	next *T
	v    int
}

func value(t *T) int {
	if t == nil {
		return 0
	}
	return t.v
}

//nullprune:ignore
func skipped(t *T) int {
	return t.next.v
}

func main() {
	t := &T{v: 1}
	println(value(t), skipped(t))
}
