package globals

import "github.com/hashicorp/go-hclog"

var AppLogger = hclog.New(&hclog.LoggerOptions{
	Name:  "pitchingmate-chat",
	Level: hclog.LevelFromString("INFO"),
})
