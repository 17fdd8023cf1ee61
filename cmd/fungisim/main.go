/*
Copyright © 2025 the FungiSim authors.
This file is part of FungiSim.

FungiSim is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

FungiSim is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with FungiSim.  If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/fungisim/fungisim/fungisimutil"
)

func main() {
	if err := fungisimutil.Root().Execute(); err != nil {
		log.Fatal(err)
	}
}
