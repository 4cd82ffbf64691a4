package main

import "bizdesk/internal/app"

// @title        bizdesk API
// @version      1.0
// @description  Opportunity proposal approval workflow backend.
// @BasePath     /
func main() {
	app.Run()
}
