package main

import "thoreinstein.com/prflow/cmd"

func main() {
	cmd.Execute()
}
