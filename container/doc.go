// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package container hosts a single web application archive inside an embedded HTTP server.

A Container is driven through a fixed lifecycle by a test orchestrator:

	c := container.New(container.Options{Logger: logger})
	c.Setup(configuration)
	c.Start()
	executor, _ := c.Deploy(archive)
	executor.Invoke(ctx, protocol.TestMethod{ClassName: "GreeterTest", MethodName: "shouldGreet"})
	c.Undeploy(archive)
	c.Stop()

Applications are always mounted at ContextPath.  Only one application may be deployed at a time.
*/
package container
