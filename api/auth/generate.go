package auth

//go:generate go run github.com/swaggo/swag/cmd/swag@v1.16.6 init --parseDependency --parseInternal -g router.go -d ../../internal/auth/http,../../pkg/authsdk -o . --outputTypes go --packageName auth
