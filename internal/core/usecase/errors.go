package usecase

import "errors"

var errImageNotString = errors.New("image must be a base64 string")
