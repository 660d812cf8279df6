package main

import (
	"github.com/cvelabhub/labhub/internal/cli"
	"github.com/cvelabhub/labhub/internal/common/logging"
)

func main() {
	logging.InitPretty()
	cli.Execute()
}
