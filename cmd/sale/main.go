package main

import (
	"os"

	"mint-sale-go/internal/common"
)

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if err := Execute(); err != nil {
		loggerCleanup()
		os.Exit(1)
	}
}
