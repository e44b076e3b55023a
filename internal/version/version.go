package version

const Value = "0.4.0"

func ProbeUserAgent() string {
	return "hprobe/" + Value
}

func RequestUserAgent() string {
	return "hprobe-request/" + Value
}
