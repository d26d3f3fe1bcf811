package main

import "github.com/ValentinKolb/sdcs/cmd"

func main() {
	cmd.Execute()
}
