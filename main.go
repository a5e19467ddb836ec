package main

import "csc-scraper/cmd"

func main() {
	cmd.Execute()
}
