package updater

import (
	"github.com/biadnet/go-biadnet/metrics"
)

const subsystem = "updater"

var (
	polls = metrics.NewCounter(
		"polls",
		subsystem,
		"number of polls sent to peers",
		[]string{"result"},
	)
	pollOK       = polls.WithLabelValues("ok")
	pollFailed   = polls.WithLabelValues("failed")
	pollOverload = polls.WithLabelValues("incomplete")

	served = metrics.NewCounter(
		"served_polls",
		subsystem,
		"number of polls served to peers",
		[]string{"result"},
	)
	servedOK           = served.WithLabelValues("ok")
	servedIncompatible = served.WithLabelValues("incompatible")
	servedIncomplete   = served.WithLabelValues("incomplete")

	fetched = metrics.NewCounter(
		"fetched_items",
		subsystem,
		"number of content items fetched from peers",
		[]string{"result"},
	)
	fetchedOK       = fetched.WithLabelValues("ok")
	fetchedMismatch = fetched.WithLabelValues("mismatch")
	fetchedMissing  = fetched.WithLabelValues("missing")

	expiredReplies = metrics.NewCounter(
		"expired_replies",
		subsystem,
		"number of peer replies which didn't arrive in time",
		[]string{"kind"},
	)
)
