package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.CreateTaskActivity)
	w.RegisterActivity(a.CompleteTaskActivity)
	w.RegisterActivity(a.FailTaskActivity)
	w.RegisterActivity(a.GenerateReportActivity)
	w.RegisterActivity(a.EditReportActivity)
	w.RegisterActivity(a.ReadReportActivity)
	w.RegisterActivity(a.WriteReportActivity)
}
