// @title           Eventra API
// @version         1.0
// @description     Event management marketplace API (Swagger documentation).
// @contact.name    Eventra
// @contact.email   support@eventra.app
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:4000
// @BasePath        /api/v1

package main

import "eventra_backend/internal/app"

func main() {
	app.Run()
}
