// Package request defines a transport independent builder for a single HTTP request.
//
// A RequestBuilder is created by a Factory for one URL, configured by chained calls
// (SetTimeout, SetMethod, SetHeader, SetData, AddFormParam) and consumed by exactly
// one terminal call: Make returns the status code, MakeForResult returns the response text.
//
// The client.Client is the default Factory, based on a connection-per-request net/http transport.
// The restyclient.Client is an alternative Factory based on the resty library.
//
// Configuration calls never fail, problems are logged and recorded, see RequestBuilder.Err.
// Terminal calls report an absent result by a non-nil error.
package request
