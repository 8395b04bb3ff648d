package main

import "github.com/julienstroheker/tcprelay/client/cmd"

func main() {
	cmd.Execute()
}
