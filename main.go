package main

import "github.com/tidewhale/tidewhale/cmd"

func main() {
	cmd.Execute()
}
