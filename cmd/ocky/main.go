// Package main is the entry point for the ocky CLI.
package main

func main() {
	Execute()
}
