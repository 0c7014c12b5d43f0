package log

import (
	"github.com/0xERR0R/canarynet/instanceid"
	log "github.com/sirupsen/logrus"
)

// instanceIdLogger stamps every entry with the id of this process, so log
// lines of parallel environment runs stay distinguishable after aggregation.
type instanceIdLogger struct {
	formatter log.Formatter
}

func (l instanceIdLogger) Format(entry *log.Entry) ([]byte, error) {
	entry.Data["instanceId"] = instanceid.String()
	return l.formatter.Format(entry)
}
