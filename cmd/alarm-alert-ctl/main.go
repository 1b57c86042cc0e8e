package main

import "github.com/oshokin/alarm-alert/cmd/alarm-alert-ctl/cmd"

func main() {
	cmd.Execute()
}
