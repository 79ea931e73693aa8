package config

type WorkerKeyStruct struct {
	RecomputeSummaryQueue string
}

var WorkerKey = &WorkerKeyStruct{
	RecomputeSummaryQueue: "recompute_summary_queue",
}
