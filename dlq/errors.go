package dlq

import "errors"

var errNoSubmitter = errors.New("crontab/dlq: replay needs a submit function")
