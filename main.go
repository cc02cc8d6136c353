package main

import "github.com/openinvoice/caminv-portal/cmd"

func main() {
	cmd.Execute()
}
