package main

import "github.com/encodeous/strand/cmd"

func main() {
	cmd.Execute()
}
