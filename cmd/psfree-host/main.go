package main

import "github.com/oshokin/psfree-host/cmd/psfree-host/cmd"

func main() {
	cmd.Execute()
}
