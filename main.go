// Mosaicme turns photographs into buildable brick mosaics.
package main

import "github.com/mosaicme/mosaicme/cli"

func main() {
	cli.Execute()
}
