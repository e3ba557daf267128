package main

import "github.com/JakeFAU/trademark-harvester/cmd"

func main() {
	cmd.Execute()
}
