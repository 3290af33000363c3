// Package main is the entry point for CareGate.
package main

func main() {
	Execute()
}
