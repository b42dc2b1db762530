// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

const (
	DefaultServiceName  = "mcpgateway"
	DefaultSamplingRate = 1.0
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultMetricsPath  = "/metrics"

	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"

	AttrHTTPMethod       = "http.method"
	AttrHTTPRoute        = "http.route"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPResponseSize = "http.response_size"
	AttrErrorType        = "error.type"

	AttrTaskID     = "a2a.task_id"
	AttrTaskState  = "a2a.task_state"
	AttrRPCMethod  = "rpc.method"
	AttrMCPMethod  = "mcp.method"
	AttrMCPTarget  = "mcp.target_url"
	AttrMCPOutcome = "mcp.outcome"
	AttrMCPErrCode = "mcp.error_code"

	SpanHTTPRequest = "http.request"
	SpanSendTask    = "a2a.send_task"
	SpanMCPCall     = "mcp.call"
)
