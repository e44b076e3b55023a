package main

import "github.com/MOYARU/hprobe/cmd"

func main() {
	cmd.Execute()
}
