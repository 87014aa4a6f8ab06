package version

var Version = "0.1.0"
var BuildDate = "2025-06-02"

func GetVersion() string {
	return Version
}

func GetBuildDate() string {
	return BuildDate
}
