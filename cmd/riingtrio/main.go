package main

import (
	"fmt"
	"os"

	"github.com/diffficult/ttriingtrio-controller/cmd/riingtrio/internal"
)

func main() {
	if err := internal.RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
