// Package main provides the formdeck CLI for profile-driven document export.
package main

func main() {
	Execute()
}
