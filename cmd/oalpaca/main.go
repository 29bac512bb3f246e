package main

import "github.com/dinocodesx/oalpaca/cmd/oalpaca/cmd"

func main() {
	cmd.Execute()
}
