package auth

import stderrors "errors"

func isErr(err, target error) bool {
	return stderrors.Is(err, target)
}
