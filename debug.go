//go:build smo_debug

package smo

const debugging = true

func assert(cond bool, message string) {
	if !cond {
		panic(message)
	}
}
