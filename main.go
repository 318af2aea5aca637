package main

import (
	"fmt"
	"os"

	"github.com/allanj/corbit-joint/app"
	"github.com/allanj/corbit-joint/util/logutil"
)

func main() {
	cmd := app.Command()
	err := cmd.Dispatch(os.Args[1:])
	_ = logutil.BgLogger().Sync()
	if err != nil {
		fmt.Printf("**err**: %v\n", err)
		os.Exit(1)
	}
}
