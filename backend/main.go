package main

import "github.com/imobgestao/locacoes/backend/cli"

func main() {
	cli.Execute()
}
