package main

import "github.com/julienstroheker/tcprelay/server/cmd"

func main() {
	cmd.Execute()
}
