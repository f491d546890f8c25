package method

type Method uint8

const (
	Unknown Method = iota
	GET
	HEAD
	POST
	PUT
	DELETE
	CONNECT
	OPTIONS
	TRACE
	PATCH
)

var names = [...]string{
	GET:     "GET",
	HEAD:    "HEAD",
	POST:    "POST",
	PUT:     "PUT",
	DELETE:  "DELETE",
	CONNECT: "CONNECT",
	OPTIONS: "OPTIONS",
	TRACE:   "TRACE",
	PATCH:   "PATCH",
}

func (m Method) String() string {
	if int(m) >= len(names) {
		return ""
	}

	return names[m]
}

// Parse maps a method token onto the enum. Tokens are case-sensitive, as the
// standard demands.
func Parse(token string) Method {
	switch len(token) {
	case 3:
		if token == "GET" {
			return GET
		} else if token == "PUT" {
			return PUT
		}
	case 4:
		if token == "POST" {
			return POST
		} else if token == "HEAD" {
			return HEAD
		}
	case 5:
		if token == "PATCH" {
			return PATCH
		} else if token == "TRACE" {
			return TRACE
		}
	case 6:
		if token == "DELETE" {
			return DELETE
		}
	case 7:
		if token == "CONNECT" {
			return CONNECT
		} else if token == "OPTIONS" {
			return OPTIONS
		}
	}

	return Unknown
}
