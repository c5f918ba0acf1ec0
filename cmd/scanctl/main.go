// Command scanctl runs scan analysis and event reports from the terminal.
package main

func main() {
	Execute()
}
