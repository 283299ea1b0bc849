package main

import "github.com/kozaktomas/school-reports/cmd"

func main() {
	cmd.Execute()
}
