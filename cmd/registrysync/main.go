// Command registrysync inspects and drives institution registry syncs
// against the same database the server uses, without starting HTTP.
package main

func main() {
	Execute()
}
