package main

import "campus-food-backend/cmd"

func main() {
	cmd.Run()
}
