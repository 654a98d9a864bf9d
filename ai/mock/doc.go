// Package mock provides a test double for ai.Model.
//
// # Usage
//
//	model := mock.NewMockModel().
//	    WithGenerateFunc(func(ctx context.Context, req ai.Request) (string, error) {
//	        return `{"vendorName": "Acme"}`, nil
//	    })
//
//	// Check call counts and the last request
//	count := model.CallCount()
//	req := model.LastRequest()
//
// # Default Behavior
//
// Without a GenerateFunc the model answers each request with the next queued
// response (see WithResponses), and with "OK" once the queue is empty.
package mock
