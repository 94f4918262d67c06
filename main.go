package main

import "commerce-reconciler/cmd"

func main() {
	cmd.Execute()
}
