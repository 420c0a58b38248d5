package main

import "github.com/oshokin/appimage-builder/cmd/appimage-builder/cmd"

func main() {
	cmd.Execute()
}
