package assert

import "fmt"

func NotNil(value any, name ...any) {
	if value == nil {
		panic(fmt.Sprint(append([]any{"expected value to be not nil "}, name...)...))
	}
}

func NotEmptyStr(str string, name ...any) {
	if str == "" {
		panic(fmt.Sprint(append([]any{"expected string to be non-empty "}, name...)...))
	}
}
