// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package webapp hosts a deployed archive under a context path.

A Context is configured by an ordered list of Configuration stages when it starts.  The default
pipeline extracts the archive and applies its descriptor.  The extended pipeline additionally binds
environment values into request contexts and runs the archive's initializers, which is what
in-application test execution relies on.
*/
package webapp
