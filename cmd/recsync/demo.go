package main

const demoModels = `
defaults:
  success: success
models:
  users:
    fields:
      age:
        type: int
      active:
        type: bool
    controller:
      stats:
        url: /users
        method: get
`

const demoSeed = `
users:
  - {id: "1", name: Jane Doe, role: admin, age: 34, active: true}
  - {id: "2", name: John Roe, role: guest, age: 27, active: false}
  - {id: "3", name: Jane Smith, role: guest, age: 41, active: true}
  - {id: "4", name: Ann Lee, role: admin, age: 23, active: true}
`
