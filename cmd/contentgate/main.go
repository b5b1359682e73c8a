// Package main is the entry point for contentgate.
package main

func main() {
	Execute()
}
