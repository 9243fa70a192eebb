package main

import "webscope/server"

func main() {
	server.Main()
}
