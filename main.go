package main

import "bm-camera-control/cmd"

func main() {
	cmd.Execute()
}
