package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

func intParam(ctx echo.Context, name string) (int, error) {
	return strconv.Atoi(ctx.Param(name))
}
