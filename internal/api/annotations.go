// @title           group-blocks API
// @version         1.0
// @description     Read-only view of the group add content blocks. Requests use the browser session; without one the anonymous account is used.
// @BasePath        /api/v1
package api
