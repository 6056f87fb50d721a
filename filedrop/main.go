package main

import "github.com/ocfl-archive/filedrop/filedrop/cmd"

func main() {
	cmd.Execute()
}
