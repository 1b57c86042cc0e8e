package main

import "github.com/oshokin/alarm-alert/cmd/alarm-alert/cmd"

func main() {
	cmd.Execute()
}
