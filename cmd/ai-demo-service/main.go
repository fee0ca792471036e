package main

import (
	"github.com/Linn0813/ai-demo-service/internal/cli"
)

func main() {
	cli.Execute()
}
