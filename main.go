package main

import "github.com/apiguardian/apiguardian/cmd"

func main() {
	cmd.Execute()
}
