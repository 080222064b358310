// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package archive describes packaged web applications that can be deployed into a test container.

A WebArchive is assembled in memory from static assets, handler registrations, initializers and
environment bindings.  Materialize writes its assets as a zip file named after the archive, and
Extract unpacks such a file for serving.  Handlers and initializers never leave the process; they
are carried alongside the zip for the deploying container to mount.
*/
package archive
