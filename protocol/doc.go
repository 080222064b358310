// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package protocol implements in-application test invocation over HTTP.

Test methods are registered explicitly in a Registry and bundled into an archive with Registration.
Once the archive is deployed, a MethodExecutor issues GET {base}{contextPath}/TestRunner requests
carrying className and methodName query parameters, and the runner answers with a JSON TestResult.
*/
package protocol
