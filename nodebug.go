//go:build !smo_debug

package smo

const debugging = false

func assert(bool, string) {}
