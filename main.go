package main

import "github.com/Yates-Labs/coursebot/cmd"

func main() {
	cmd.Execute()
}
